package main

import "github.com/cotpanel/cotpanel/internal/cli"

// @title cotpanel API
// @version 1.0
// @description Web panel API for the adsbcot gateway service
// @host localhost:8181
// @BasePath /api/v1
func main() {
	cli.Execute()
}
