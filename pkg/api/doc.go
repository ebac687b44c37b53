// Package api serves the accountgate HTTP surface.
//
// # Routes
//
//	GET  /azure_login                    redirect to the identity provider
//	GET  /auth/callback                  complete the login, redirect by role
//	GET  /logout                         clear the session, redirect home
//	GET  /, /login                       public pages
//	GET  /basic_user_*                   pages for any signed-in account
//	GET  /admin_*                        pages for admins
//	PUT  /user/profile/update            self-service name/email update
//	POST /admin/create_user              create an account
//	PUT  /admin/update_user/{id}         update any field of an account
//	PUT  /admin/deactivate_user/{id}     set an account's status
//	GET  /admin/all_users                list accounts
//
// Login failures never surface as errors: the callback queues a flash message and
// redirects to /login. JSON endpoints answer {"message": ...} on success and
// {"error": ...} with the status code of the error's kind otherwise.
//
// # Pages
//
// Page templates are not part of this service. Pages go through a Renderer; the
// default JSONRenderer writes {"page", "data", "flashes"} for a client-side front end.
package api
