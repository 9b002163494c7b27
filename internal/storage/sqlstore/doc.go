// Package sqlstore 提供基于 database/sql 的存储实现，支持 MySQL 与 SQLite 两种驱动，
// 并负责执行 deploy/migrations 中的表结构迁移。
package sqlstore
