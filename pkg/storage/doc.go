/*
Package storage persists container→endpoint assignments in a bbolt file
so cleanup can find sandboxes created by a process that is no longer
alive. The journal is advisory: the engines remain the source of truth,
and reaping tolerates entries for containers that are already gone.
*/
package storage
