// conflictsuite — харнесс проверки взаимного исключения
// административных операций кластера.
//
// Использование:
//
//	conflictsuite [--suite FILE] [--rule NAME] [--json] <command> [flags]
//
// Команды:
//
//	run      Один прогон матрицы конфликтов
//	soak     Повторные прогоны по cron или интервалу
//	serve    Read API над историей прогонов
//	matrix   Просмотр и проверка матрицы
//	wait     Ожидание завершения транзакций / compaction
//	watch    Поток результатов из RabbitMQ
//	runs     История прогонов через read API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/conflictsuite/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
