package cache

import "fmt"

// Key layout. User addresses never contain ':', so the suffix after the
// counter prefix is always the platform id.
func unreadKey(user string) string                     { return fmt.Sprintf("UNREAD:%s", user) }
func unreadPlatformKey(user, platformID string) string { return fmt.Sprintf("UNREAD:%s:%s", user, platformID) }
func inboxKey(user string) string                      { return fmt.Sprintf("INBOX:%s", user) }
func chatKey(conversationID string) string             { return fmt.Sprintf("CHAT:%s", conversationID) }
func chatStreamKey(user string) string                 { return fmt.Sprintf("STREAM:CHAT:%s", user) }
