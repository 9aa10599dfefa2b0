// Package common holds the ambient infrastructure shared by the library
// packages and the command line tool.
//
// Logging goes through dragonboat's logger facade (logger.ILogger). Every
// package obtains its logger once with logger.GetLogger("<pkg>"); the
// command line tool calls InitLoggers to install the custom line format
//
//	2025/01/02 15:04:05.000000 WARN  | lock       | ...
//
// and to set one level for all loggers listed in Loggers.
package common
