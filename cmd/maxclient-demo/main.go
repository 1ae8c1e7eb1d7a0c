// Command maxclient-demo is a login-to-first-message sample driver,
// mirroring the teacher's own cmd/outline-cli-ws entrypoint: flag-parsed
// config, a background task or two started over a cancellable context,
// and signal-driven shutdown.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"maxclient/api"
	"maxclient/auth"
	"maxclient/session"
	"maxclient/telemetry"
)

func main() {
	var cfgPath string
	var useGorilla bool
	flag.StringVar(&cfgPath, "c", "config.yaml", "config path")
	flag.BoolVar(&useGorilla, "gorilla-ws", false, "use the gorilla/websocket web-mode dialer instead of the default")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutting down...")
		cancel()
	}()

	client := session.New()
	if useGorilla {
		client.SetWebDialer(newGorillaDialer(""))
	}

	deviceID, mtInstance := loadOrCreateDeviceID(cfg.DeviceIDFile)

	log.Printf("connecting...")
	if _, err := client.Connect(ctx, deviceID, mtInstance, cfg.Mobile); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()
	log.Printf("handshake ok")

	stdin := bufio.NewReader(os.Stdin)
	phone := readLine(stdin, "phone (+7...): ")
	if _, err := auth.StartAuth(ctx, client, phone); err != nil {
		log.Fatalf("start_auth: %v", err)
	}

	code := readLine(stdin, "code: ")
	if _, err := auth.CheckCode(ctx, client, code); err != nil {
		log.Fatalf("check_code: %v", err)
	}

	syncResp, err := auth.SyncAndSetUserID(ctx, client)
	if err != nil {
		log.Fatalf("sync: %v", err)
	}
	userID, ok := auth.ExtractUserID(syncResp)
	if !ok {
		log.Printf("sync succeeded but no profile.contact.id found; telemetry not started")
	} else {
		log.Printf("logged in as user %d", userID)
		go telemetry.New(client).Run(ctx)
	}

	chatIDStr := readLine(stdin, "chat id for a test message: ")
	var chatID uint64
	if _, err := fmt.Sscanf(chatIDStr, "%d", &chatID); err != nil {
		log.Fatalf("not a number: %s", chatIDStr)
	}

	text := readLine(stdin, "message text: ")
	if _, err := api.SendMessage(ctx, client, chatID, text, api.SendMessageArgs{}); err != nil {
		log.Printf("send_message: %v", err)
	} else {
		log.Printf("message sent")
	}

	if resp, err := api.FetchHistory(ctx, client, chatID, nil, 0, 200); err != nil {
		log.Printf("fetch_history: %v", err)
	} else {
		log.Printf("fetch_history: %v", resp.Payload.ToInterface())
	}

	log.Printf("client stays connected; ctrl-c to exit")
	<-ctx.Done()
}

func readLine(r *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

// loadOrCreateDeviceID mirrors examples/login.rs's get_device_id: persist
// two uuids (one hyphen-stripped for deviceId, one raw for mt_instanceid)
// across runs so re-launching the demo doesn't mint a new device identity
// every time.
func loadOrCreateDeviceID(path string) (deviceID, mtInstance string) {
	if b, err := os.ReadFile(path); err == nil {
		lines := strings.Split(strings.TrimSpace(string(b)), "\n")
		if len(lines) >= 2 && lines[0] != "" && lines[1] != "" {
			return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])
		}
	}

	deviceID = strings.ReplaceAll(uuid.NewString(), "-", "")
	mtInstance = uuid.NewString()
	content := deviceID + "\n" + mtInstance
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		log.Printf("could not persist device id to %s: %v", path, err)
	}
	return deviceID, mtInstance
}
