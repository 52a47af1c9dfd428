// Package testsupport holds helpers shared by tests across packages: a valid
// throwaway configuration, lineup fixtures on disk, and an opened cache.
package testsupport
