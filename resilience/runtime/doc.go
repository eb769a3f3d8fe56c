// Package runtime provides panic-recovery helpers shared by the library's
// goroutine-spawning components.
package runtime
