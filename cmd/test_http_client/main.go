package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	TotalCount  = 10000
	Concurrency = 100
	BaseURL     = "http://localhost:8000"
	Username    = "loadtest"
)

// 對 /user/credit 做併發壓測，量測 TPS
// 先確保帳戶存在 (重複建立回 409，忽略)
func main() {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := post(client, "/user/add", map[string]any{"username": Username})
	if err != nil {
		log.Fatalf("couldn't create account: %v", err)
	}
	resp.Body.Close()

	var wg sync.WaitGroup
	wg.Add(TotalCount)

	sem := make(chan struct{}, Concurrency)

	startTime := time.Now()

	for i := 0; i < TotalCount; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := post(client, "/user/credit", map[string]any{
				"username": Username,
				"delta":    0.01,
			})
			if err != nil {
				if idx%1000 == 0 {
					log.Printf("credit %d failed: %v", idx, err)
				}
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK && idx%1000 == 0 {
				log.Printf("credit %d status: %d", idx, resp.StatusCode)
			}
		}(i)
	}

	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v\n", TotalCount, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(TotalCount)/elapsed.Seconds())
}

func post(client *http.Client, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return client.Post(BaseURL+path, "application/json", bytes.NewReader(payload))
}
