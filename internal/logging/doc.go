// Package logging provides a small leveled logger for the media converter.
//
// Levels, lowest first: DEBUG, INFO, WARN, ERROR. FATAL always prints and
// exits. The initial level comes from DEBUG or LOG_LEVEL in the environment;
// the server replaces it with the configured level at startup via SetLevel.
package logging
