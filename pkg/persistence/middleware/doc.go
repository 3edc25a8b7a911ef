// Package middleware decorates session and profile stores with at-rest encryption.
package middleware
