// Copyright (c) SynthMind Authors.
// Licensed under the MIT License.

/*
包 memory 提供知识综合智能体的分层记忆系统。

# 概述

本包实现四层记忆层级，信息只沿一个方向流动：
感官缓冲 → 工作记忆 → 情景记忆 → 语义记忆（知识图谱）。
层间迁移全部由协调器驱动，各层自身不持有定时器。

# 记忆层次

  - [SensoryBuffer]：时间窗环形缓冲，保存原始多模态观测，
    过期在访问时惰性求值（默认保留 30 秒）。
  - [WorkingMemory]：固定容量活动集（默认 7 项），按
    显著度 × 时间衰减打分淘汰，容量不变式永不违反。
  - [EpisodicMemory]：只追加的经验日志，按余弦相似度检索，
    低置信度情景存储但不进入规划先验。
  - [KnowledgeGraph]：语义层接口，概念按标签相似度合并、
    嵌入加权平均强化，关系权重累加；[InMemoryKnowledgeGraph]
    为邻接表实现。

# 协调与持久化

  - [Coordinator]：唯一逻辑写者。Tick 依次执行
    排空感官缓冲、准入工作记忆、晋升淘汰项、固化情景簇；
    规划器反馈通过 [MemoryWriter] 串行写入。
  - [Snapshot] / [Store]：持久化边界，提供文件（原子写）、
    Redis 与 SQLite 三种后端，快照无损往返。

# 外部依赖

  - [Embedder]：向量嵌入接口，代表外部多模态推理器；
    核心只依赖维度稳定，不关心向量如何产生。
*/
package memory
