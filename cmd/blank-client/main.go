// Command blank-client is an interactive console client for the blank
// relay, used to exercise the protocol by hand: log into a room, claim the
// presenter role, push share payloads, and watch what the room receives.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/feifeihai120/blank-socket/protocol"
	"github.com/feifeihai120/blank-socket/relayclient"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:3001", "relay address")
	id := flag.String("id", "", "client id (random when empty)")
	name := flag.String("name", "console", "display name")
	room := flag.String("room", "room1", "room to join on login")
	flag.Parse()

	if *id == "" {
		*id = uuid.NewString()[:8]
	}

	client := relayclient.New(relayclient.DefaultConfig(*addr))
	registerHandlers(client)
	client.OnState(func(e relayclient.StateEvent) {
		fmt.Printf("** connection %s\n", e.State)
	})
	client.OnError(func(err error) {
		fmt.Printf("** error: %v\n", err)
	})

	if err := client.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("connected to %s as id=%s name=%s room=%s\n", *addr, *id, *name, *room)
	fmt.Println("commands: login | master | cancel | send <text-or-json> | list [roomId] | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		var err error
		switch cmd {
		case "login":
			err = client.Login(*id, *name, *room)
		case "master":
			err = client.SetMaster()
		case "cancel":
			err = client.CancelMaster()
		case "send":
			err = client.SendShare(parsePayload(arg))
		case "list":
			err = client.GetClientList(strings.TrimSpace(arg))
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
			continue
		}

		if err != nil {
			fmt.Printf("** %s failed: %v\n", cmd, err)
		}
	}
}

// parsePayload sends valid JSON through as-is and wraps anything else as a
// JSON string.
func parsePayload(arg string) any {
	trimmed := strings.TrimSpace(arg)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}

	return trimmed
}

func registerHandlers(client *relayclient.Client) {
	client.On(protocol.EventClientList, func(data json.RawMessage) {
		var members []protocol.ClientInfo
		if err := json.Unmarshal(data, &members); err != nil {
			fmt.Printf("<< bad clientList payload: %v\n", err)
			return
		}

		fmt.Printf("<< members (%d):\n", len(members))
		for _, m := range members {
			marker := " "
			if m.IsMaster {
				marker = "*"
			}
			fmt.Printf("   %s %s (%s) room=%s\n", marker, m.ID, m.Name, m.RoomID)
		}
	})

	client.On(protocol.EventStartShare, func(data json.RawMessage) {
		var info protocol.ShareInfo
		_ = json.Unmarshal(data, &info)
		fmt.Printf("<< share started by %s (%s)\n", info.MasterID, info.MasterName)
	})

	client.On(protocol.EventEndShare, func(data json.RawMessage) {
		var info protocol.ShareInfo
		_ = json.Unmarshal(data, &info)
		fmt.Printf("<< share ended by %s (%s)\n", info.MasterID, info.MasterName)
	})

	client.On(protocol.EventSendShare, func(data json.RawMessage) {
		var push protocol.SharePush
		_ = json.Unmarshal(data, &push)
		fmt.Printf("<< share data: %s\n", push.Data)
	})

	client.On(protocol.EventShareState, func(data json.RawMessage) {
		var state protocol.ShareStateData
		_ = json.Unmarshal(data, &state)
		if state.State == protocol.ShareStateActive {
			fmt.Println("<< a share is in progress in this room")
		} else {
			fmt.Println("<< no share in progress")
		}
	})

	for _, event := range []string{
		protocol.EventLogin,
		protocol.EventSetMaster,
		protocol.EventSendShare,
		protocol.EventCancelMaster,
		protocol.EventGetClientList,
	} {
		event := event
		client.On(protocol.AckEvent(event), func(data json.RawMessage) {
			var ack protocol.Ack
			if err := json.Unmarshal(data, &ack); err != nil {
				fmt.Printf("<< bad %s payload: %v\n", protocol.AckEvent(event), err)
				return
			}

			if ack.Code == protocol.CodeOK {
				fmt.Printf("<< %s ok\n", event)
			} else {
				fmt.Printf("<< %s failed: %s\n", event, ack.Msg)
			}
		})
	}
}
