package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/andrew/topic-rag/pkg/query"
)

var (
	gatewayURL = flag.String("gateway", "http://localhost:8080", "RAG gateway base URL")
	mode       = flag.String("mode", "inclusive", "Operation mode: classify or inclusive")
	timeout    = flag.Duration("timeout", 3*time.Minute, "Per-question timeout")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		cancel()
	}()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Println(boldGreen("Topic RAG Chat"))
	fmt.Printf("Gateway: %s, mode: %s\n", boldCyan(*gatewayURL), *mode)
	fmt.Println("Type your question and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	client := &http.Client{Timeout: *timeout}
	scanner := bufio.NewScanner(os.Stdin)

	for ctx.Err() == nil {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		result, err := ask(ctx, client, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Println("Make sure the gateway is running: rag-gateway -config config.yaml")
			continue
		}

		fmt.Printf("%s %s\n", boldCyan("Topic:"), result.Topic)
		if result.Answer != nil {
			fmt.Printf("%s %s\n", boldCyan("Answer:"), result.Answer.Result)
		}
		for _, reason := range result.Degraded {
			fmt.Println(yellow("degraded: " + reason))
		}
		fmt.Println()
	}
}

func ask(ctx context.Context, client *http.Client, question string) (*query.Result, error) {
	payload, err := json.Marshal(map[string]string{
		"message":        question,
		"operation_mode": *mode,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *gatewayURL+"/api/classifier", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result query.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding gateway reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return &result, nil
}
