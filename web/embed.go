// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package web provides the embedded static assets served at /static/.
package web

import "embed"

// StaticFS embeds the web/static/ directory tree: the site stylesheet
// shared by the public pages and the admin console.
//
//go:embed all:static
var StaticFS embed.FS
