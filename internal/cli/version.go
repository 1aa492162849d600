package cli

// Version is the hatch release version printed by --version.
const Version = "0.4.0"
