// loadgen drives a running attune server with synthetic game traffic:
// rounds dealt to teams, both players' answers, and dashboard polling.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Default configuration constants.
const (
	defaultTeams    = 8
	defaultRounds   = 50
	defaultInterval = 100 * time.Millisecond
	defaultTimeout  = 10 * time.Second
)

var (
	baseURL  string
	teams    int
	rounds   int
	interval time.Duration
	timeout  time.Duration
)

var items = []string{"A", "B", "X", "Y"}

func main() {
	rootCmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Synthetic traffic generator for the attune live metrics service",
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:9080", "Base URL of the service")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "HTTP request timeout")

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Deal rounds and submit both players' answers for a set of teams",
		RunE:  runPlay,
	}
	playCmd.Flags().IntVar(&teams, "teams", defaultTeams, "Number of teams to simulate")
	playCmd.Flags().IntVar(&rounds, "rounds", defaultRounds, "Rounds per team")
	playCmd.Flags().DurationVar(&interval, "interval", defaultInterval, "Delay between rounds per team")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the dashboard and print each build",
		RunE:  runWatch,
	}
	watchCmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")

	rootCmd.AddCommand(playCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: timeout}
	ctx := cmd.Context()

	for n := 1; n <= rounds; n++ {
		for t := 0; t < teams; t++ {
			team := fmt.Sprintf("Team%d", t+1)
			if err := playRound(ctx, client, team, n); err != nil {
				return fmt.Errorf("round %d for %s: %w", n, team, err)
			}
		}
		time.Sleep(interval)
	}

	fmt.Printf("submitted %d rounds for %d teams\n", rounds, teams)
	return nil
}

// playRound posts one round and both answers. Responses agree most of the
// time so the generated matrices show structure instead of noise.
func playRound(ctx context.Context, client *http.Client, team string, n int) error {
	roundID := uuid.NewString()
	item1 := items[rand.Intn(len(items))]
	item2 := items[rand.Intn(len(items))]

	if err := post(ctx, client, "/rounds", map[string]any{
		"round_id":     roundID,
		"team_id":      team,
		"round_number": n,
		"player1_item": item1,
		"player2_item": item2,
		"ts":           time.Now().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	resp1 := rand.Intn(2) == 0
	resp2 := resp1
	if rand.Intn(4) == 0 {
		resp2 = !resp1
	}
	for i, a := range []struct {
		item string
		resp bool
	}{{item1, resp1}, {item2, resp2}} {
		if err := post(ctx, client, "/answers", map[string]any{
			"team_id":           team,
			"round_id":          roundID,
			"player_session_id": fmt.Sprintf("%s-p%d", team, i+1),
			"assigned_item":     a.item,
			"response":          a.resp,
			"ts":                time.Now().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: timeout}
	ctx := cmd.Context()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			body, err := get(ctx, client, "/dashboard")
			if err != nil {
				fmt.Printf("dashboard fetch failed: %v\n", err)
				continue
			}
			fmt.Println(body)
		}
	}
}

func post(ctx context.Context, client *http.Client, path string, payload map[string]any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return nil
}

func get(ctx context.Context, client *http.Client, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}
	return string(body), nil
}
