package main

// Version is the collserv version. It is overwritten by the build via
// -ldflags "-X main.Version=...".
var Version = "0.1.0"
