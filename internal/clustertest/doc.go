// Package clustertest — кластер в памяти процесса для проверки харнесса.
//
// Cluster реализует sqlconn.Dialer и понимает тот же набор statement-ов,
// что и настоящий кластер: COMPACT DATABASE, ALTER DATABASE ... REPLICA,
// BALANCE VGROUP, REDISTRIBUTE VGROUP, SPLIT VGROUP, CREATE DATABASE,
// USE, SHOW TRANSACTIONS, SHOW COMPACTS, SHOW VGROUPS.
//
// Каждая административная операция становится job-ом, который живёт
// JobDuration (или до FinishAll) и виден в SHOW COMPACTS / SHOW TRANSACTIONS.
// Пока job активен, конфликтующие операции отклоняются с документированными
// сообщениями.
//
// Используется в тестах (как httptest) и драйвером "sim" в CLI для
// пробного прогона без кластера.
//
//	c := clustertest.New(clustertest.WithJobDuration(50 * time.Millisecond))
//	conn, _ := c.Dial(ctx)
//	conn.Exec(ctx, "COMPACT DATABASE db")
//	err := conn.Exec(ctx, "BALANCE VGROUP") // conflict with compact
package clustertest
