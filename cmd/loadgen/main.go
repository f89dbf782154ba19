// loadgen drives the token API with concurrent transfers and reports
// throughput. Every request carries a fresh ref_id, so retries on a real
// deployment would be safe.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "token API base URL")
		totalCount  = flag.Int("n", 100000, "total number of transfers")
		concurrency = flag.Int("c", 200, "concurrent requests in flight")
		from        = flag.String("from", "0x0000000000000000000000000000000000000001", "sender address")
		to          = flag.String("to", "0x0000000000000000000000000000000000000002", "recipient address")
		amount      = flag.Uint64("amount", 1, "amount per transfer")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	wg.Add(*totalCount)
	sem := make(chan struct{}, *concurrency)

	startTime := time.Now()

	for i := 0; i < *totalCount; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			body, _ := json.Marshal(map[string]any{
				"ref_id": uuid.New().String(),
				"from":   *from,
				"to":     *to,
				"amount": *amount,
			})
			resp, err := client.Post(*baseURL+"/api/transfer", "application/json", bytes.NewReader(body))
			if err != nil {
				if idx%10000 == 0 {
					log.Printf("transfer %d failed: %v", idx, err)
				}
				return
			}
			resp.Body.Close()
		}(i)
	}

	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v\n", *totalCount, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*totalCount)/elapsed.Seconds())
}
