// Package migrate streams the entities of one store into another.
//
// A Pipeline moves the records of one entity type: a single producer scrolls
// the Source into a bounded queue and N consumers pull batches from it. Each
// batch is relabeled (the source identifier moves into SurrogateField so the
// target assigns a fresh one), its foreign keys are rewritten through the
// running SurrogateMap and the batch is created in the Target. Types are
// migrated in EntitiesInOrder, referenced types first, so that every foreign
// key finds its surrogate.
package migrate
