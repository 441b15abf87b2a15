package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は定期ジョブ（賞味期限チェック、通知クリーンアップ）を常駐実行することを示す。
	CommandWorker Command = "worker"
	// CommandSweep は賞味期限チェックを1回だけ実行して終了することを示す。
	// 外部のスケジューラ（Cloud Scheduler、Kubernetes CronJobなど）から起動する用途。
	CommandSweep Command = "sweep"
	// CommandMigrate はデータベースマイグレーションと食材種別の投入を実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandVAPIDKeys はWeb Push用のVAPID鍵ペアを生成して標準出力に書き出す。
	CommandVAPIDKeys Command = "vapid-keys"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "sweep":
		return CommandSweep
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	case "vapid-keys":
		return CommandVAPIDKeys
	default:
		return CommandServe
	}
}
