// Package seestar implements the line-delimited JSON-RPC protocol spoken
// by Seestar smart telescopes on TCP port 4700.
//
// Every message is one JSON object terminated by a newline. Outbound
// commands look like
//
//	{"id":1,"method":"get_device_state"}
//
// and the telescope answers with a response carrying the same id and the
// "jsonrpc":"2.0" marker. Interleaved with responses, the telescope pushes
// events discriminated by an "Event" field:
//
//	{"Event":"PiStatus","temp":21.5,"Timestamp":"1234.5"}
//
// A Client owns one connection at a time. It assigns command ids, keeps the
// link alive with periodic pi_get_time queries, and aggregates events into
// a Status snapshot plus a short history of recent events:
//
//	client := seestar.NewClient("192.168.1.50", seestar.DefaultPort)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	resp, err := client.SendAndRecv(ctx, seestar.NewCommand(seestar.MethodGetTime, nil))
package seestar
