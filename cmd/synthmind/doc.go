// Copyright (c) SynthMind Authors.
// Licensed under the MIT License.

// Package main 是 SynthMind 守护进程入口。
//
// 提供 serve/version/health 子命令：serve 周期性驱动记忆协调器，
// 并暴露 Prometheus 指标与健康检查端点。
package main
