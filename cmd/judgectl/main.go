// Command judgectl is an operator REPL for driving a running judger
// by hand: enqueue a submission payload and tail the result queue,
// useful for manually verifying a worker against a live sandbox
// without standing up a producer service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"ptoj-judger/internal/config"
	"ptoj-judger/internal/worker"
)

var redisURL = flag.String("redis", "redis://localhost:6379", "redis url")

func main() {
	flag.Parse()

	q, err := worker.NewQueue(*redisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "judgectl: connect redis: %v\n", err)
		os.Exit(1)
	}
	defer q.Close()

	rl, err := readline.New("judgectl> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "judgectl: init readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	ctx := context.Background()
	printHelp()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "judgectl: %v\n", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := dispatch(ctx, q, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func dispatch(ctx context.Context, q *worker.Queue, line string) error {
	fields := strings.SplitN(line, " ", 2)
	switch fields[0] {
	case "help":
		printHelp()
		return nil
	case "exit", "quit":
		os.Exit(0)
	case "submit":
		if len(fields) < 2 {
			return fmt.Errorf("usage: submit <path-to-submission.json>")
		}
		return submit(ctx, q, strings.TrimSpace(fields[1]))
	case "tail":
		count := 1
		if len(fields) == 2 {
			fmt.Sscanf(fields[1], "%d", &count)
		}
		return tail(ctx, q, count)
	case "config":
		if len(fields) < 2 {
			return fmt.Errorf("usage: config <path-to-judger.yaml>")
		}
		return showConfig(strings.TrimSpace(fields[1]))
	default:
		return fmt.Errorf("unknown command: %s (try 'help')", fields[0])
	}
	return nil
}

func submit(ctx context.Context, q *worker.Queue, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var probe map[string]interface{}
	if err := json.Unmarshal(body, &probe); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := q.Push(ctx, worker.TaskQueueName, string(body)); err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	fmt.Printf("submitted sid=%v\n", probe["sid"])
	return nil
}

func tail(ctx context.Context, q *worker.Queue, count int) error {
	for i := 0; i < count; i++ {
		popCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
		payload, err := q.BlockingPop(popCtx, worker.ResultQueueName)
		cancel()
		if err != nil {
			return fmt.Errorf("pop result: %w", err)
		}
		if payload == "" {
			fmt.Println("(timed out waiting for a result)")
			return nil
		}
		var pretty map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
			continue
		}
		fmt.Println(payload)
	}
	return nil
}

func showConfig(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load %s: %v", path, r)
		}
	}()
	c := config.Load(path)
	dump, dumpErr := config.Dump(c)
	if dumpErr != nil {
		return dumpErr
	}
	fmt.Print(dump)
	return nil
}

func printHelp() {
	fmt.Println("commands: submit <file.json> | tail [n] | config <file.yaml> | help | exit")
}
