// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command blogctl runs operator tasks against the blog database:
// migrations, admin accounts and backups.
package main

import "inkpress/cmd/blogctl/commands"

func main() {
	commands.Execute()
}
