package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"focustrack/internal/ipc"
)

// request sends one command to the daemon and returns its response.
func request(cmd ipc.Command) (ipc.Response, error) {
	var resp ipc.Response

	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return resp, fmt.Errorf("error connecting to daemon socket (%s): %w\nIs the focustrack daemon running?", socketPath, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return resp, fmt.Errorf("error sending command: %w", err)
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, fmt.Errorf("error receiving response: %w", err)
	}
	return resp, nil
}

// sendCommand is request for one-shot commands: failures end the process.
func sendCommand(cmd ipc.Command) ipc.Response {
	resp, err := request(cmd)
	if err != nil {
		log.Fatal(err)
	}
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Message)
		os.Exit(1)
	}
	return resp
}

// sendAndDecode runs cmd and decodes its response data into out.
func sendAndDecode(cmd ipc.Command, out interface{}) ipc.Response {
	resp := sendCommand(cmd)
	if err := ipc.DecodeData(resp, out); err != nil {
		log.Fatalf("Error decoding %s response: %v", cmd.Name, err)
	}
	return resp
}
