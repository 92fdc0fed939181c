// Package poller ждёт, пока в кластере не останется активных транзакций.
//
// Сервер не умеет уведомлять о завершении транзакции, поэтому Poller
// повторяет introspection-запрос (SHOW TRANSACTIONS / SHOW COMPACTS)
// с фиксированным интервалом, пока тот не вернёт 0 строк или не
// истечёт бюджет.
//
// Истечение бюджета — мягкий исход (Result.Status = TIMED_OUT), а не
// ошибка: job на сервере может законно работать дольше окна проверки.
// Ошибкой считаются только сбой самого запроса и отмена context.
//
// Граничный случай: Timeout == 0 выполняет ровно один запрос.
package poller
