// Package containaudit provides a container isolation audit tool.
//
// Containaudit inspects kernel namespaces, control groups, capabilities,
// user privileges and local network exposure from inside a container.
package containaudit
