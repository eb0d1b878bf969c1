//go:build wasip1

// Test guest standing in for a game build: reports a score, then asks the
// page to exit. Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -o executor/testdata/guest.wasm ./executor/testdata/guest
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/caffeineduck/webbridge/guest"
)

func main() {
	points := 5
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil {
			points = n
		}
	}

	fmt.Println("game over")

	c := guest.NewClient(os.Stderr)
	c.SendJSON(fmt.Sprintf(`{"points":%d}`, points))
	c.SendExit()
}
