package main

import "io"

func showHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Ech0 command-line client
=======================

Usage:
  ech0ctl [-help] <command> [args]

Commands:
  login <username> <password>   Log in and store the session
  register <username> <password>
  logout                        Forget the stored session
  me                            Show the logged-in user
  status                        Show board status
  messages [page] [pageSize]    List a page of messages (default 1 20)
  message <id>                  Show one message
  post [-private] [-image path] <content>
  delete <id>
  pin <id>                      Toggle the pinned flag (admin)
  tags                          List hashtags
  bytag [-author id] [-user name] <tag>
                                List messages carrying a hashtag
  images                        List images
  upload <file>                 Upload an image and print its path
  rename <username>
  passwd <new-password>

Configuration (environment):
  ECH0_CONFIG                 YAML file layered under the variables below
  ECH0_BASE_API               Base URL (default "http://localhost:1314/api")
  ECH0_TIMEOUT_MS             Request timeout in milliseconds (default 10000)
  ECH0_SESSION_FILE           Persist the session token in this file
  ECH0_INCLUDE_CREDENTIALS    Send and store cookies ("true" or "false")
  ECH0_LOG_LEVEL              debug, info, warn or error
  ECH0_METRICS_ADDR           Serve /metrics on this address

Examples:
  ECH0_SESSION_FILE=~/.ech0.yaml ech0ctl login ann secret
  ECH0_SESSION_FILE=~/.ech0.yaml ech0ctl post "hello #go"
  ech0ctl messages 2 50
`)
}
