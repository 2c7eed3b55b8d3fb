// Command acommsctl is the operator control CLI for a running acommsd,
// speaking the JSON-lines admin protocol over a single request/response
// TCP connection per invocation. Subcommands follow
// skycoin-skywire-testnet's skywire-cli node commands: one *cobra.Command
// per admin action, flags for the request fields, RPC dial deferred to
// each Run.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsaubergine/acomms/internal/admin"
)

var adminAddr string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "acommsctl",
	Short: "Controls a running acommsd over its admin protocol",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminAddr, "addr", "127.0.0.1:8421", "acommsd admin listen address")
	rootCmd.AddCommand(pushCmd, snapshotCmd, flushCmd, injectAckCmd)
}

func client() *admin.Client {
	return admin.NewClient(adminAddr)
}

func catch(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printResponse(resp admin.Response) {
	out, err := json.MarshalIndent(resp.Data, "", "  ")
	catch(err)
	fmt.Println(string(out))
}

var (
	pushKind string
	pushID   int
	pushDest int
	pushB64  string
)

func init() {
	pushCmd.Flags().StringVar(&pushKind, "kind", "ccl", "queue kind (ccl or dccl)")
	pushCmd.Flags().IntVar(&pushID, "id", 0, "queue id")
	pushCmd.Flags().IntVar(&pushDest, "dest", 0, "destination modem id")
	pushCmd.Flags().StringVar(&pushB64, "frame", "", "base64-encoded frame bytes")
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Enqueues a raw CCL frame for a destination modem",
	Run: func(_ *cobra.Command, _ []string) {
		frame, err := base64.StdEncoding.DecodeString(pushB64)
		catch(err)
		resp, err := client().Push(pushKind, pushID, pushDest, frame)
		catch(err)
		printResponse(resp)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Prints acommsd's current queue introspection state",
	Run: func(_ *cobra.Command, _ []string) {
		resp, err := client().Snapshot()
		catch(err)
		printResponse(resp)
	},
}

var (
	flushKind string
	flushID   int
)

func init() {
	flushCmd.Flags().StringVar(&flushKind, "kind", "ccl", "queue kind (ccl or dccl)")
	flushCmd.Flags().IntVar(&flushID, "id", 0, "queue id")
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drops all pending messages and ACK obligations for a queue",
	Run: func(_ *cobra.Command, _ []string) {
		resp, err := client().Flush(flushKind, flushID)
		catch(err)
		printResponse(resp)
	},
}

var (
	injectAckFrame uint32
	injectAckDest  int
)

func init() {
	injectAckCmd.Flags().Uint32Var(&injectAckFrame, "frame", 0, "frame index to acknowledge")
	injectAckCmd.Flags().IntVar(&injectAckDest, "dest", 0, "modem id the ACK is addressed to")
}

var injectAckCmd = &cobra.Command{
	Use:   "inject-ack",
	Short: "Simulates an ACK for a frame, for testing pacing without a live modem",
	Run: func(_ *cobra.Command, _ []string) {
		resp, err := client().InjectAck(injectAckFrame, injectAckDest)
		catch(err)
		printResponse(resp)
	},
}
