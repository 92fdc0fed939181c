// Package worker выполняет blocking-операцию сценария в своей горутине.
//
// # Обзор
//
// Worker владеет собственным соединением с кластером и:
//
//  1. Отправляет административный statement
//  2. Поднимает syncevent.Event сразу после того, как statement принят
//  3. Ждёт через poller, пока транзакция не исчезнет из introspection
//
// Если statement отклонён, событие всё равно поднимается (с IssueError),
// чтобы coordinator не завис на Wait.
//
//	ev := syncevent.New()
//	h := w.Start(ctx, []*domain.AdministrativeOperation{op}, ev, "")
//	fired, err := ev.WaitTimeout(ctx, time.Minute)
//	// ... конфликтующая команда ...
//	report := h.Join()
//
// # Цепочки
//
// RunChain отправляет операции по очереди: каждая должна дойти до
// COMPLETED, прежде чем уйдёт следующая. Событие поднимается после
// первой операции. TIMED_OUT звена прерывает цепочку.
//
// Отмена операции на сервере не выполняется никогда: если ожидание
// прервано, job продолжает работать в кластере.
package worker
