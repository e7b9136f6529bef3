/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package wire is the fabric's codec: the control-channel tagged envelope
// and the data-channel frame header. It is deliberately format-agnostic
// above the Tag field so that a future binary control encoding could replace
// the JSON body without the broker, adapter or proxy packages noticing.
package wire

// Tag identifies a control message's variant. Every envelope is
// self-describing by its Tag.
type Tag string

const (
	TagConnect              Tag = "Connect"
	TagConnectAck           Tag = "ConnectAck"
	TagDisconnect           Tag = "Disconnect"
	TagSubscribe            Tag = "Subscribe"
	TagSubscribeAck         Tag = "SubscribeAck"
	TagUnsubscribe          Tag = "Unsubscribe"
	TagFlowControl          Tag = "FlowControl"
	TagQueryCapabilities    Tag = "QueryCapabilities"
	TagCapabilitiesResponse Tag = "CapabilitiesResponse"
	TagError                Tag = "Error"
)

// FlowStatus is the value carried by a FlowControl message.
type FlowStatus string

const (
	FlowBackpressure FlowStatus = "backpressure"
	FlowFlowing      FlowStatus = "flowing"
)

// Message is the tagged control envelope. Only the fields relevant to Tag
// are meaningful: the Tag is the discriminant, the rest is a flat
// optional-field bag, which keeps the decode path to a single struct
// without one Go type per variant.
type Message struct {
	Tag Tag `json:"tag"`

	// Connect / SubscribeAck / CapabilitiesResponse
	Capabilities []string `json:"capabilities,omitempty"`
	// ConnectAck
	ToolID     string `json:"tool_id,omitempty"`
	DataListen string `json:"data_listen_address,omitempty"`

	// Subscribe / Unsubscribe / QueryCapabilities
	Target string `json:"target,omitempty"`

	// SubscribeAck
	DataConnect string `json:"data_connect_address,omitempty"`

	// FlowControl
	Source string     `json:"source,omitempty"`
	Status FlowStatus `json:"status,omitempty"`

	// Error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func Connect(caps []string) Message {
	return Message{Tag: TagConnect, Capabilities: caps}
}

func ConnectAck(toolID, dataListen string) Message {
	return Message{Tag: TagConnectAck, ToolID: toolID, DataListen: dataListen}
}

func Disconnect() Message {
	return Message{Tag: TagDisconnect}
}

func Subscribe(target string) Message {
	return Message{Tag: TagSubscribe, Target: target}
}

func SubscribeAck(dataConnect string, caps []string) Message {
	return Message{Tag: TagSubscribeAck, DataConnect: dataConnect, Capabilities: caps}
}

func Unsubscribe(target string) Message {
	return Message{Tag: TagUnsubscribe, Target: target}
}

func FlowControl(source string, status FlowStatus) Message {
	return Message{Tag: TagFlowControl, Source: source, Status: status}
}

func QueryCapabilities(target string) Message {
	return Message{Tag: TagQueryCapabilities, Target: target}
}

func CapabilitiesResponse(caps []string) Message {
	return Message{Tag: TagCapabilitiesResponse, Capabilities: caps}
}

func ErrorMsg(code, message string) Message {
	return Message{Tag: TagError, Code: code, Message: message}
}
