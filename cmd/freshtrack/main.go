// Command freshtrack は食材の鮮度管理APIサーバーと定期ジョブを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/freshtrack/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "freshtrack: %v\n", err)
		os.Exit(1)
	}
}
