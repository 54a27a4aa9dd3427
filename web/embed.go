package web

import "embed"

// RelayFiles embeds the wallet bridge page that the browser keeps open.
//
//go:embed relay
var RelayFiles embed.FS
