// Package codec translates entities to graph facts and back, driven entirely
// by a reflected class schema.
//
// Subjects are minted from the class namespace: the root of entity "7" of
// class ex:SceneObject is ex:SceneObject_7, and the value of its composite
// attribute hasPosition lives at ex:SceneObject_7/hasPosition. Every root and
// nested subject carries an rdf:type fact, which is how Decode finds them.
//
// The codec never issues store calls itself. BuildQuery and BuildUpsert
// return descriptors that any driver.StoreClient can execute:
//
//	c := codec.New(class)
//	rows, err := store.Query(ctx, c.BuildQuery())
//	entities, err := c.DecodeBindings(rows)
//
//	upd, err := c.BuildUpsert("7", attrs)
//	err = store.Update(ctx, upd)
//
// Decode(Encode(e)) returns e for any entity whose attributes match the
// schema, once normalized (see Normalize).
package codec
