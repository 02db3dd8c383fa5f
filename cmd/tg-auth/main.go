package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session/tdesktop"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"
	"gorm.io/gorm"

	"github.com/blockedby/tg-inviter/internal/telegram"
)

// sessionDB holds the session between login and export.
const sessionDB = "tg_auth_session.db"

func main() {
	fmt.Println("=== telegram auth tool ===")
	fmt.Println("this tool generates a SESSION_STRING for the inviter in user mode")
	fmt.Println()

	_ = godotenv.Load()
	reader := bufio.NewReader(os.Stdin)

	// try to detect telegram desktop
	tdataPath := getTelegramDesktopPath()
	accounts, tdataErr := tdesktop.Read(tdataPath, nil)
	haveTData := tdataErr == nil && len(accounts) > 0

	fmt.Println("choose authentication method:")
	if haveTData {
		fmt.Printf("  1. use telegram desktop session (%d found at %s)\n", len(accounts), tdataPath)
	} else {
		fmt.Println("  1. use telegram desktop session (not found)")
	}
	fmt.Println("  2. authenticate with phone number (sms/code)")
	fmt.Println("  3. scan a QR code with the telegram app")
	fmt.Print("\nenter choice [3]: ")

	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)

	// get api credentials
	apiID, apiHash := getAPICredentials(reader)

	var (
		client *gotgproto.Client
		err    error
	)
	switch choice {
	case "1":
		if !haveTData {
			accounts, err = askTDataPath(reader)
			if err != nil {
				fail("read telegram desktop data", err)
			}
		}
		client, err = authWithTData(apiID, apiHash, accounts, reader)
	case "2":
		client, err = authWithPhone(apiID, apiHash, reader)
	default:
		client, err = authWithQR(apiID, apiHash)
	}
	if err != nil {
		fail("authentication failed", err)
	}
	defer client.Stop()

	// export session string
	sessionString, err := client.ExportStringSession()
	if err != nil {
		fail("export session", err)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("logged in as: @%s (id %d)\n", client.Self.Username, client.Self.ID)
	fmt.Println("\nyour session string:")
	fmt.Println("---")
	fmt.Println(sessionString)
	fmt.Println("---")
	fmt.Println("\nadd this to your .env file as SESSION_STRING")
	fmt.Printf("you can delete %s after copying the session string.\n", sessionDB)
	fmt.Println("\n⚠️  keep this secret! it provides full access to your telegram account")
}

func fail(what string, err error) {
	fmt.Printf("error: %s: %v\n", what, err)
	os.Exit(1)
}

// getTelegramDesktopPath returns the path to Telegram Desktop data directory
func getTelegramDesktopPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Telegram Desktop", "tdata")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Telegram Desktop", "tdata")
	default: // linux
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "TelegramDesktop", "tdata")
	}
}

func askTDataPath(reader *bufio.Reader) ([]tdesktop.Account, error) {
	fmt.Print("enter telegram desktop path: ")
	customPath, _ := reader.ReadString('\n')
	customPath = strings.TrimSpace(customPath)

	if !strings.HasSuffix(customPath, "tdata") {
		customPath = filepath.Join(customPath, "tdata")
	}
	accounts, err := tdesktop.Read(customPath, nil)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts in %s", customPath)
	}
	return accounts, nil
}

// getAPICredentials reads API ID and Hash from env or prompts user
func getAPICredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("API_ID")
	apiHash := os.Getenv("API_HASH")

	if apiIDStr == "" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fail("invalid api_id", err)
	}

	return apiID, apiHash
}

// authWithTData authenticates using Telegram Desktop session
func authWithTData(apiID int, apiHash string, accounts []tdesktop.Account, reader *bufio.Reader) (*gotgproto.Client, error) {
	idx := 0
	if len(accounts) > 1 {
		fmt.Printf("\nfound %d telegram accounts, select account number [1]: ", len(accounts))
		choice, _ := reader.ReadString('\n')
		if n, err := strconv.Atoi(strings.TrimSpace(choice)); err == nil && n >= 1 && n <= len(accounts) {
			idx = n - 1
		}
	}

	fmt.Println("\nauthenticating with telegram desktop session...")

	return gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(""), // empty = use session
		&gotgproto.ClientOpts{
			Session:          sessionMaker.TdataSession(accounts[idx]).Name("tdata_session"),
			DisableCopyright: true,
		},
	)
}

// authWithPhone authenticates using phone number (SMS/code)
func authWithPhone(apiID int, apiHash string, reader *bufio.Reader) (*gotgproto.Client, error) {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for code)")

	return gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionDB)),
			DisableCopyright: true,
		},
	)
}

// authWithQR logs in by QR code, stores the session where gotgproto can load
// it and reopens it as a gotgproto client.
func authWithQR(apiID int, apiHash string) (*gotgproto.Client, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("\nopen telegram > settings > devices > link desktop device and scan:")
	data, err := telegram.LoginQR(ctx, nil, apiID, apiHash, func(url string) {
		fmt.Println()
		qrterminal.GenerateHalfBlock(url, qrterminal.L, os.Stdout)
		fmt.Println("waiting for scan... (the code refreshes automatically)")
	})
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(sessionDB), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := telegram.SaveSession(db, data); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	return gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(""),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionDB)),
			DisableCopyright: true,
		},
	)
}
