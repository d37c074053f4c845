package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Values already exported in the environment win over .env entries.
	_ = godotenv.Load()
	Execute()
}
