/*
Package application is a library for building the proof server and its
clients.

application implements the server- and client-side application-layer
components around the protocol package: configuration files, message
encoding, logging, metrics, and the network layer of the server.

Encoding

This module implements the message encoding and decoding for client-server
communications. Messages are JSON-RPC 2.0 objects sent one per
connection.

Logger

This module implements a generic logging system that can be used by any
application/executable.

Metrics

This module exposes request counts and latencies and tree reloads
through a prometheus registry.

ServerBase

This module provides an API for implementing a server which accepts
requests over TLS-protected TCP and Unix socket connections, with
per-address method permissions.
*/
package application
