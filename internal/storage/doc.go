// Package storage 保存工具调用日志，提供内存实现；SQL 实现位于 sqlstore 子包。
package storage
