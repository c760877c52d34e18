// Command pegasus manages the dislike list of a Pegasus frontend install:
// flagging games, inspecting the list, moving flagged files to the Trash
// quarantine and watching for storage or list changes.
package main
