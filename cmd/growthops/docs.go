package main

//go:generate swag init -g cmd/growthops/main.go -o docs

// @title           GrowthOps Strategy Runner API
// @version         0.1.0
// @description     Strategy execution, execution history and feature switches.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
