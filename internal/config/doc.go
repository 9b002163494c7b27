// Package config 负责加载 hederakit 的 JSON 配置文件，补全默认值，
// 并允许通过 HEDERA_* 环境变量覆盖网络与运营账户信息。
package config
