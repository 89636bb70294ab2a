package main

var (
	Version = "0.4.0"
)
