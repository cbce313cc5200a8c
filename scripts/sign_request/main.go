package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"sheet2pdf/internal/security"
)

func main() {
	newSecret := flag.Bool("new-secret", false, "Print a fresh random API_SECRET and exit")
	flag.Usage = func() {
		fmt.Println("Usage: go run ./scripts/sign_request <secret> <method> <path> [body-file]")
		fmt.Println("       go run ./scripts/sign_request -new-secret")
		fmt.Println("Example: go run ./scripts/sign_request mysecret POST /convert report.xlsx")
	}
	flag.Parse()

	if *newSecret {
		// 32 bytes (256 bits) as 64 hex characters
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hex.EncodeToString(buf))
		return
	}

	args := flag.Args()
	if len(args) < 3 {
		flag.Usage()
		os.Exit(2)
	}

	var body []byte
	if len(args) > 3 {
		var err error
		if body, err = os.ReadFile(args[3]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	fmt.Printf("X-Timestamp: %s\n", timestamp)
	fmt.Printf("X-Signature: %s\n", security.Sign(args[0], args[1], args[2], body, timestamp))
}
