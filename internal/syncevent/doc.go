// Package syncevent — одноразовый сигнал между worker-ом и coordinator-ом.
//
// Worker поднимает Event сразу после того, как кластер принял его
// statement (или отклонил — тогда сигнал несёт ошибку). Coordinator
// блокируется на Wait и только после этого отправляет конфликтующую
// команду.
//
// Свойства:
//   - Set срабатывает ровно один раз, повторные вызовы игнорируются
//   - событие не сбрасывается
//   - у события ровно один наблюдатель: второй Wait получает ErrAlreadyObserved
//   - Wait ограничен context-ом или таймаутом
//
// Успешный Wait возвращает токен Fired. Без него conflict-проверку
// выполнить нельзя, так что порядок "сначала событие, потом команда"
// проверяется во время выполнения.
package syncevent
