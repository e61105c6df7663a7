// Copyright (c) SynthMind Authors.
// Licensed under the MIT License.

// Package config 提供 SynthMind 的配置管理功能。
//
// 包含配置加载与默认值管理。
// 支持从 YAML 文件和环境变量加载配置，
// 优先级为 默认值 → YAML 文件 → 环境变量。
package config
