// Package api 通过 REST 接口暴露工具目录、同步调用、异步作业与调用记录，
// 并挂载健康检查与 Prometheus 指标端点。
package api
