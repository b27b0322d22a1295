package version

// Version is the current NicheScan release
const Version = "0.2.0"
