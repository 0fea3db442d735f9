package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/pkg/serverutils"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// verify_access signs a short-lived token for a profile and asks a running
// server whether each given feature key is allowed.
//
//	go run ./cmd/verify_access -user <profile-id> -email rep@example.com contacts video_email
func main() {
	_ = godotenv.Load()

	base := flag.String("base", "http://localhost:3000/api", "API base URL")
	user := flag.String("user", "", "profile id to sign the token for")
	email := flag.String("email", "", "email claim")
	flag.Parse()

	userId, err := uuid.Parse(*user)
	if err != nil {
		color.Red("❌ -user must be a profile UUID: %v", err)
		os.Exit(1)
	}
	keys := flag.Args()
	if len(keys) == 0 {
		keys = []string{"contacts", "analytics", "ai_tools", "video_email", "whitelabel", "admin_features"}
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}
	token, err := serverutils.IssueToken(secret, userId, *email, 5*time.Minute)
	if err != nil {
		color.Red("❌ Failed to sign token: %v", err)
		os.Exit(1)
	}

	fmt.Println("🔍 VERIFYING FEATURE ACCESS")
	fmt.Println("--------------------------------------------------")

	client := &http.Client{Timeout: 10 * time.Second}
	denied := 0
	for _, key := range keys {
		res, status, err := check(client, *base, token, key)
		if err != nil {
			color.Red("❌ %-24s request failed: %v", key, err)
			denied++
			continue
		}
		if status != http.StatusOK {
			color.Red("❌ %-24s HTTP %d", key, status)
			denied++
			continue
		}
		if res.Allowed {
			color.Green("✅ %-24s allowed (%s)", res.FeatureKey, res.Reason)
		} else {
			color.Yellow("⛔ %-24s denied  (%s)", res.FeatureKey, res.Reason)
			denied++
		}
	}

	fmt.Println("--------------------------------------------------")
	fmt.Printf("%d/%d keys allowed\n", len(keys)-denied, len(keys))
}

func check(client *http.Client, base, token, key string) (*dto.FeatureCheckResponse, int, error) {
	req, err := http.NewRequest("GET", base+"/features/check?key="+url.QueryEscape(key), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var envelope serverutils.BaseResponse[dto.FeatureCheckResponse]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, resp.StatusCode, err
	}
	return &envelope.Data, resp.StatusCode, nil
}
