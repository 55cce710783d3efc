package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/tbxark/healthagent/config"
	"github.com/tbxark/healthagent/dialogue"
	"github.com/tbxark/healthagent/engine"
	"github.com/tbxark/healthagent/types"
)

const replSessionKey = "repl"

func startREPL(ctx context.Context, cfg *config.Config, kind types.RecordKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown record kind %q", kind)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := engine.NewAgent(
		"HealthLogger",
		"An agent that records workouts and meals through conversation",
		kind,
		a.manager,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: logger})
	chatCtx := engine.WithSessionKey(ctx, replSessionKey)
	if _, err := a.manager.Start(replSessionKey, kind); err != nil {
		return err
	}

	lines := readLines(os.Stdin)
	fmt.Println("운동이나 식단을 말씀해 주세요. 명령: /kind exercise|diet, /records, /quit")
	for {
		fmt.Print("사용자: ")
		var input string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Println("입력이 종료되었습니다.")
				return nil
			}
			input = strings.TrimSpace(line)
		}

		if strings.HasPrefix(input, "/") {
			quit, err := a.command(ctx, input)
			if err != nil {
				fmt.Printf("오류: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		iter := runner.Run(chatCtx, []*schema.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				if errors.Is(event.Err, types.ErrBusy) || errors.Is(event.Err, types.ErrSessionReset) {
					fmt.Printf("\n어시스턴트: %s\n", dialogue.MsgBusy)
					continue
				}
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			pause(ctx, cfg.ReplyDelay.Std())
			fmt.Printf("\n어시스턴트: %v\n", msg.Content)
			if resp, ok := event.Output.CustomizedOutput.(*engine.Response); ok && len(resp.Suggestions) > 0 {
				fmt.Printf("추천: %s\n", strings.Join(resp.Suggestions, " | "))
			}
			fmt.Println("======")
		}
	}
}

func (a *app) command(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/kind":
		if len(fields) < 2 {
			return false, errors.New("사용법: /kind exercise|diet")
		}
		s, err := a.manager.SwitchKind(replSessionKey, types.RecordKind(fields[1]))
		if err != nil {
			return false, err
		}
		fmt.Printf("기록 종류를 %s(으)로 바꿨습니다.\n", s.RecordKind)
		return false, nil
	case "/records":
		records, err := a.repo.ListRecords(ctx, "", 10)
		if err != nil {
			return false, err
		}
		return false, renderRecords(os.Stdout, records)
	default:
		return false, fmt.Errorf("알 수 없는 명령 %s", fields[0])
	}
}

func renderRecords(w io.Writer, records []types.Record) error {
	table := tablewriter.NewTable(w)
	table.Header("Time", "Kind", "Summary", "Calories")
	for _, rec := range records {
		calories := ""
		switch {
		case rec.Derived.CaloriesBurned > 0:
			calories = fmt.Sprintf("-%dkcal", rec.Derived.CaloriesBurned)
		case rec.Derived.Macros != nil:
			calories = fmt.Sprintf("+%.0fkcal", rec.Derived.Macros.CaloriesKcal)
		}
		if err := table.Append(rec.ConfirmedAt.Format("01-02 15:04"), string(rec.Kind), rec.Summary, calories); err != nil {
			return err
		}
	}
	return table.Render()
}

func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}

// pause delays a REPL reply. It never runs inside the dialogue engine.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
