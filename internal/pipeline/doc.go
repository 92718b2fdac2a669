// Package pipeline defines pipelines, their four phases and the module
// capability executed inside each phase. Scheduling lives in package engine.
package pipeline
