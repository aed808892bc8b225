package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "emochat server URL")
	user := flag.String("user", "cli-user", "Owner id for the conversation")
	flag.Parse()

	fmt.Println("emochat CLI")
	fmt.Printf("Server: %s | User: %s\n", *server, *user)
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /memories, /followups")
	fmt.Println("---")

	var sessionID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/memories" {
			fetchMemories(*server, *user)
			continue
		}
		if input == "/followups" {
			fetchFollowUps(*server, *user)
			continue
		}

		sessionID = sendMessage(*server, *user, sessionID, input)
	}
}

func fetchMemories(server, user string) {
	resp, err := http.Get(server + "/api/memories?owner_id=" + user)
	if err != nil {
		printError("Failed to fetch memories: %v", err)
		return
	}
	defer resp.Body.Close()

	var recs []struct {
		Content    string  `json:"content"`
		Type       string  `json:"type"`
		Emotion    string  `json:"emotion"`
		Importance float64 `json:"importance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		printError("Failed to parse memories: %v", err)
		return
	}
	if len(recs) == 0 {
		fmt.Println("Nothing remembered yet.")
		return
	}
	fmt.Println("Remembered:")
	for _, r := range recs {
		fmt.Printf("  [%s %.2f] %s", r.Type, r.Importance, r.Content)
		if r.Emotion != "" {
			fmt.Printf(" (%s)", r.Emotion)
		}
		fmt.Println()
	}
}

func fetchFollowUps(server, user string) {
	resp, err := http.Get(server + "/api/followups?owner_id=" + user)
	if err != nil {
		printError("Failed to fetch follow-ups: %v", err)
		return
	}
	defer resp.Body.Close()

	var fus []struct {
		Kind   string    `json:"kind"`
		Reason string    `json:"reason"`
		DueAt  time.Time `json:"due_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fus); err != nil {
		printError("Failed to parse follow-ups: %v", err)
		return
	}
	if len(fus) == 0 {
		fmt.Println("No pending follow-ups.")
		return
	}
	fmt.Println("Pending follow-ups:")
	for _, f := range fus {
		fmt.Printf("  %s (%s) due %s\n", f.Kind, f.Reason, f.DueAt.Format("2006-01-02 15:04"))
	}
}

func sendMessage(server, user, sessionID, content string) string {
	body, _ := json.Marshal(map[string]string{
		"owner_id":   user,
		"session_id": sessionID,
		"message":    content,
	})

	client := &http.Client{Timeout: 65 * time.Second}
	resp, err := client.Post(
		server+"/api/chat",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		printError("Request failed: %v", err)
		return sessionID
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return sessionID
	}

	var out struct {
		SessionID string `json:"session_id"`
		Result    struct {
			Reply    string `json:"reply"`
			Emotion  string `json:"emotion"`
			FollowUp *struct {
				Kind string `json:"kind"`
			} `json:"follow_up"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		printError("Failed to parse response: %v", err)
		return sessionID
	}

	fmt.Printf("\033[36m[emochat]\033[0m %s\n", out.Result.Reply)
	if out.Result.FollowUp != nil {
		fmt.Printf("\033[33m(scheduled a %s follow-up)\033[0m\n", out.Result.FollowUp.Kind)
	}
	return out.SessionID
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
