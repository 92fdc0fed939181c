// Package matrix загружает и валидирует матрицу конфликтов.
//
// Матрица — данные, а не код: набор правил ConflictRule, цели операций,
// бюджет polling и подготовка кластера. Описывается в YAML:
//
//	targets:
//	  database: db
//	  replica: 3
//	  redistribute_vgroup: 5
//	  dnode: 1
//	setup:
//	  create_database: true
//	  vgroups: 4
//	poll:
//	  timeout: 300s
//	  interval: 1s
//	event_timeout: 60s
//	rules:
//	  - name: compact-vs-alter-replica
//	    blocking: COMPACT
//	    attempted: ALTER_REPLICA
//	    expected_error: Transaction not completed due to conflict with compact
//
// Default() возвращает штатную матрицу: compaction против каждой
// структурной операции и каждая структурная операция против compaction.
package matrix
