// Package conflict проверяет, что кластер отклоняет конфликтующую команду.
//
// Asserter отправляет команду по соединению coordinator-а и требует,
// чтобы она завершилась CommandError с ожидаемым сообщением. Сообщение
// сверяется через Matcher: подстрока (по умолчанию) или полное совпадение.
//
// Проверку можно выполнить только с токеном syncevent.Fired, то есть
// после того как blocking-операция принята кластером.
package conflict
