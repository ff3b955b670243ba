package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"

	"shelfd/internal/config"
)

const historyFile = ".shelfd_history"

type Response struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
	Books  []struct {
		ID      int64  `json:"id"`
		Slug    string `json:"slug"`
		Title   string `json:"title"`
		Authors string `json:"authors"`
		Year    string `json:"year"`
	} `json:"books"`
}

func main() {
	if len(os.Args) > 1 {
		executeRequest(strings.Join(os.Args[1:], " "))
		return
	}

	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		_, _ = rl.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			_, _ = rl.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("Shelfd Interactive Shell (exit to quit)")
	for {
		line, err := rl.Prompt("shelfd> ")
		if err != nil {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}
		rl.AppendHistory(input)
		executeRequest(input)
	}
}

func executeRequest(query string) {
	start := time.Now()

	apiURL := config.Get().Server.FullURL() + "/api/search?q=" + url.QueryEscape(query)
	client := http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(apiURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var res Response
	if err := json.Unmarshal(body, &res); err != nil || res.Status != "ok" {
		fmt.Printf("API Error: %s\n", string(body))
		return
	}

	elapsed := time.Since(start)

	fmt.Printf("[Trace]: %s\n", resp.Header.Get("X-Request-ID"))

	if len(res.Books) > 0 {
		fmt.Printf("%-5s | %-30s | %-25s | %-4s\n", "ID", "Title", "Authors", "Year")
		fmt.Println(strings.Repeat("-", 75))
		for _, b := range res.Books {
			fmt.Printf("%-5d | %-30s | %-25s | %-4s\n", b.ID, b.Title, b.Authors, b.Year)
		}
		fmt.Printf("\nTotal: %d\n", res.Total)
	} else {
		fmt.Println("No results found.")
	}

	fmt.Printf("\n⏱ Took: %v\n\n", elapsed)
}
