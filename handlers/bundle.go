// File: skywatch/handlers/handlerBundle.go
package handlers

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Monitoring *MonitoringHandler
}
