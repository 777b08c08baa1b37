package events

const (
	TopicCartActivity  = "storefront.cart.activity"
	TopicProfileSynced = "storefront.profile.synced"
)

// Partition key = cart id, so all activity for one cart keeps order.
func PartitionKey(id string) []byte { return []byte(id) }
