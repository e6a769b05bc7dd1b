package main

import (
	"os"

	"romy/backend/internal/app"
)

func main() {
	os.Exit(app.Run())
}
