// Package common provides the configuration and logging shared by the dSolr
// HTTP API and the command line interface.
//
// The package focuses on:
//   - Configuration structure for the API server
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - ServerConfig: Listen address, api keys, shutdown timeout and log level of
//     the HTTP API. The transport settings live in solr.ClientConfig.
//
//   - Logger: Custom logging implementation that plugs into the logger.ILogger
//     facade, so every package logger ("solr", "api", "cmd") writes the same
//     "LEVEL | package | message" format.
package common
