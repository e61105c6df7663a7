// Copyright (c) SynthMind Authors.
// Licensed under the MIT License.

/*
Package types 提供 SynthMind 知识综合智能体的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 memory、planner、tools、
config 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - Observation        — 多模态观测（text / image / graph 封闭变体）
  - Episode / Step     — 情节记忆条目（目标上下文 + 状态/动作/结果序列）
  - Concept / Relation — 知识图谱的概念节点与带权关系边
  - Error / ErrorCode  — 结构化错误体系（VALIDATION / NOT_FOUND /
    PLANNING_EXHAUSTED / TOOL_ERROR / CAPACITY_VIOLATION / TIMEOUT）

# 主要能力

  - 观测校验：Observation.Validate 拒绝缺失模态或载荷的输入
  - 错误工具链：AsError / IsErrorCode / GetErrorCode
  - 嵌入维度约束：Concept 嵌入在图谱范围内保持固定维度 D
*/
package types
