/*
Package config resolves hutch settings from a YAML file, the
DOCKER_ENDPOINTS environment variable and built-in defaults.

Endpoint resolution order: explicit file entries, then the
comma-separated DOCKER_ENDPOINTS variable, then the local unix socket.
Timeout fields left at zero get the production defaults (600s build
ceiling, 10s stop grace, 10s start-verification deadline).
*/
package config
