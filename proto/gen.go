// Package proto holds the gRPC service definition. Run go generate with
// protoc, protoc-gen-go and protoc-gen-go-grpc on PATH to produce the
// exchange.pb.go and exchange_grpc.pb.go sources.
package proto

//go:generate protoc --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative exchange.proto
