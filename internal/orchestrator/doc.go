// Package orchestrator прогоняет матрицу конфликтов против кластера.
//
// Orchestrator — coordinator сценария. Для каждого правила по очереди:
//
//  1. Открывает отдельное соединение для worker-а
//  2. Запускает worker с blocking-операцией
//  3. Ждёт syncevent (ограничено EventTimeout)
//  4. Отправляет конфликтующую команду по своему соединению и проверяет отказ
//  5. Ждёт завершения worker-а и записывает RuleOutcome
//
// Правила не выполняются параллельно друг с другом: в любой момент
// в кластере не больше одного класса blocking-транзакций от харнесса.
//
// Результаты передаются в Recorder (Postgres, RabbitMQ) и в метрики.
package orchestrator
