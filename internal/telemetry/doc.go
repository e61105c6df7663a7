// Copyright (c) SynthMind Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry 链路追踪初始化逻辑，
// 为规划器的 span 提供 OTLP 导出管线；指标统一走 Prometheus /metrics。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
