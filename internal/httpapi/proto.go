package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads.
const maxRequestBody = 1 << 20

const protobufContentType = "application/x-protobuf"

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == protobufContentType || ct == "application/protobuf"
}

// wantsProtobuf reports whether the client accepts a protobuf response.
func wantsProtobuf(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, protobufContentType) || strings.Contains(accept, "application/protobuf")
}

// readProto reads the request body and unmarshals it into msg.
func readProto(r *http.Request, msg proto.Message) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	return proto.Unmarshal(body, msg)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeProtoValue encodes v as a google.protobuf.Value carrying the same
// fields as its JSON form.
func writeProtoValue(w http.ResponseWriter, status int, v any) {
	pv, err := toProtoValue(v)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	writeProto(w, status, pv)
}

func toProtoValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// decodeBody fills dst from a JSON body, or from a google.protobuf.Struct
// body when the request is protobuf. Unknown fields are rejected either way.
func decodeBody(r *http.Request, dst any) error {
	var src io.Reader = io.LimitReader(r.Body, maxRequestBody)

	if isProtobuf(r) {
		var st structpb.Struct
		if err := readProto(r, &st); err != nil {
			return fmt.Errorf("decode protobuf body: %w", err)
		}
		b, err := json.Marshal(st.AsMap())
		if err != nil {
			return err
		}
		src = strings.NewReader(string(b))
	}

	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
